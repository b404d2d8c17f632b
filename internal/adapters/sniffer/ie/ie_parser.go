// Package ie decodes 802.11 management-frame information elements.
package ie

// IterateIEs calls the provided callback for each valid IE found in the data.
// It stops if it encounters a malformed IE (length exceeds remaining data).
func IterateIEs(data []byte, callback func(id int, data []byte)) {
	offset := 0
	limit := len(data)

	for offset < limit {
		// Needs at least 2 bytes (ID and Length)
		if offset+2 > limit {
			break
		}

		id := int(data[offset])
		length := int(data[offset+1])
		offset += 2

		// Check bounds
		if offset+length > limit {
			break
		}

		callback(id, data[offset:offset+length])
		offset += length
	}
}

// FindIE returns the data of the first IE with the given ID.
// Returns nil, false if not found.
func FindIE(data []byte, targetID int) ([]byte, bool) {
	var result []byte
	found := false
	IterateIEs(data, func(id int, val []byte) {
		if !found && id == targetID {
			result = val
			found = true
		}
	})
	return result, found
}
