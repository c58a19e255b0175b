package blockchain

import "github.com/kilimba/ledger/internal/codec"

// MerkleRoot builds a complete binary Merkle tree over txs' 32-byte ids
// and returns its root hash. Leaves are each transaction's raw id
// bytes; odd levels duplicate the last node, matching the teacher's
// CBMT construction.
func MerkleRoot(txs []*Transaction) ([]byte, error) {
	if len(txs) == 0 {
		sum := codec.SHA256(nil)
		return sum[:], nil
	}

	level := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		id, err := tx.idBytes()
		if err != nil {
			return nil, err
		}
		level = append(level, id)
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			combined := append(append([]byte{}, level[i]...), level[i+1]...)
			sum := codec.SHA256(combined)
			next = append(next, sum[:])
		}
		level = next
	}

	return level[0], nil
}
