package decrypt

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/fhe"
)

// snapshotLabel domain-separates the digest from every other SHAKE use in
// this system and from other consumers of the same oracle.
const snapshotLabel = "skillproof/snapshot/v1"

// digestLen is the snapshot hash output length in bytes.
const digestLen = 32

// SnapshotHash digests the exact ordered handle set dispatched to the oracle
// together with the instance identity and the batch id. Mixing in the
// instance id keeps a proof produced for one deployment from ever satisfying
// another; length-prefixing each handle keeps distinct handle sets from
// colliding by concatenation.
func SnapshotHash(instanceID string, batchID uint64, handles []fhe.Handle) []byte {
	h := sha3.NewShake256()
	var scratch [8]byte

	_, _ = h.Write([]byte(snapshotLabel))
	writeBytes(h, scratch[:], []byte(instanceID))

	binary.BigEndian.PutUint64(scratch[:], batchID)
	_, _ = h.Write(scratch[:])

	binary.BigEndian.PutUint64(scratch[:], uint64(len(handles)))
	_, _ = h.Write(scratch[:])

	for _, handle := range handles {
		writeBytes(h, scratch[:], handle.Opaque())
	}

	out := make([]byte, digestLen)
	_, _ = h.Read(out)
	return out
}

func writeBytes(h sha3.ShakeHash, scratch, b []byte) {
	binary.BigEndian.PutUint64(scratch, uint64(len(b)))
	_, _ = h.Write(scratch)
	_, _ = h.Write(b)
}
