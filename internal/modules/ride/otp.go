package ride

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"campusride/internal/types"
)

// newOTP returns a 6-digit one-time code from crypto/rand.
func newOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand only fails when the platform source is broken.
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
