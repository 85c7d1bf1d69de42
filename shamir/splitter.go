package shamir

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/openclave/wallet-custody-backend/interfaces"
)

const (
	// DefaultTotalShares is the number of shares produced by default.
	DefaultTotalShares = 3
	// DefaultThreshold is the number of distinct shares required to
	// reconstruct by default.
	DefaultThreshold = 2

	// secretSize is the byte length of the secret and of each share's y value.
	secretSize = 32
)

// SharePoint is one decoded point (x, f(x)) of the sharing polynomial.
type SharePoint struct {
	Index int
	Value []byte
}

// Splitter splits and reconstructs 32-byte secrets under a configurable
// (totalShares, threshold) scheme. The zero value is not usable; construct
// with NewSplitter or DefaultSplitter.
type Splitter struct {
	totalShares int
	threshold   int
	prime       *big.Int
}

// NewSplitter returns a splitter for the given scheme. Threshold must be at
// least 2 and no greater than totalShares; totalShares must fit a 1-byte
// x-coordinate.
func NewSplitter(totalShares, threshold int) (*Splitter, error) {
	if threshold < 2 {
		return nil, fmt.Errorf("threshold must be at least 2, got %d", threshold)
	}
	if totalShares < threshold {
		return nil, fmt.Errorf("total shares (%d) must be at least threshold (%d)", totalShares, threshold)
	}
	if totalShares > 255 {
		return nil, fmt.Errorf("total shares must be at most 255, got %d", totalShares)
	}

	return &Splitter{
		totalShares: totalShares,
		threshold:   threshold,
		prime:       crypto.S256().Params().P,
	}, nil
}

// DefaultSplitter returns the 2-of-3 splitter used for wallet shards.
func DefaultSplitter() *Splitter {
	s, err := NewSplitter(DefaultTotalShares, DefaultThreshold)
	if err != nil {
		panic(err) // static parameters, cannot fail
	}
	return s
}

// TotalShares returns the number of shares Split produces.
func (s *Splitter) TotalShares() int { return s.totalShares }

// Threshold returns the number of distinct shares Reconstruct requires.
func (s *Splitter) Threshold() int { return s.threshold }

// Split produces totalShares shares of a 32-byte secret. Each share is
// interfaces.ShardDataSize bytes: the x-coordinate followed by f(x). The
// x-coordinates are 1..totalShares; x=0 is never used.
func (s *Splitter) Split(secret []byte) ([][]byte, error) {
	if len(secret) != secretSize {
		return nil, fmt.Errorf("secret must be %d bytes, got %d", secretSize, len(secret))
	}

	secretInt := new(big.Int).SetBytes(secret)
	if secretInt.Cmp(s.prime) >= 0 {
		return nil, fmt.Errorf("secret is not a valid field element")
	}
	defer secretInt.SetInt64(0)

	// coeffs[0] is the secret; the rest are uniform random field elements.
	coeffs := make([]*big.Int, s.threshold)
	coeffs[0] = secretInt
	for i := 1; i < s.threshold; i++ {
		c, err := s.randomFieldElement()
		if err != nil {
			return nil, fmt.Errorf("failed to sample polynomial coefficient: %w", err)
		}
		coeffs[i] = c
	}
	defer func() {
		for _, c := range coeffs[1:] {
			c.SetInt64(0)
		}
	}()

	shares := make([][]byte, s.totalShares)
	for i := 0; i < s.totalShares; i++ {
		x := i + 1
		y := s.evalPoly(coeffs, int64(x))

		share := make([]byte, interfaces.ShardDataSize)
		share[0] = byte(x)
		y.FillBytes(share[1:])
		y.SetInt64(0)

		shares[i] = share
	}

	return shares, nil
}

// Reconstruct recovers the secret from at least threshold points with
// distinct indices via Lagrange interpolation at x=0. Duplicate indices are
// rejected outright: interpolating with a repeated point is degenerate and
// can yield a plausible-looking wrong value.
func (s *Splitter) Reconstruct(points []SharePoint) ([]byte, error) {
	seen := make(map[int]bool, len(points))
	for _, p := range points {
		if p.Index < 1 || p.Index > 255 {
			return nil, fmt.Errorf("%w: index %d out of range", interfaces.ErrInsufficientShares, p.Index)
		}
		if len(p.Value) != secretSize {
			return nil, fmt.Errorf("share value must be %d bytes, got %d", secretSize, len(p.Value))
		}
		if seen[p.Index] {
			return nil, fmt.Errorf("%w: index %d supplied more than once", interfaces.ErrDuplicateShareIndex, p.Index)
		}
		seen[p.Index] = true
	}
	if len(points) < s.threshold {
		return nil, fmt.Errorf("%w: need %d distinct shares, got %d", interfaces.ErrInsufficientShares, s.threshold, len(points))
	}

	// secret = sum_j y_j * prod_{m != j} x_m / (x_m - x_j)  (mod p)
	secret := new(big.Int)
	num := new(big.Int)
	den := new(big.Int)
	term := new(big.Int)

	for j, pj := range points {
		num.SetInt64(1)
		den.SetInt64(1)
		for m, pm := range points {
			if m == j {
				continue
			}
			num.Mul(num, big.NewInt(int64(pm.Index)))
			num.Mod(num, s.prime)

			term.SetInt64(int64(pm.Index - pj.Index))
			term.Mod(term, s.prime)
			den.Mul(den, term)
			den.Mod(den, s.prime)
		}

		// Fermat: den^(p-2) mod p is the multiplicative inverse.
		den.Exp(den, new(big.Int).Sub(s.prime, big.NewInt(2)), s.prime)

		term.SetBytes(pj.Value)
		term.Mul(term, num)
		term.Mod(term, s.prime)
		term.Mul(term, den)
		term.Mod(term, s.prime)

		secret.Add(secret, term)
		secret.Mod(secret, s.prime)
	}

	out := make([]byte, secretSize)
	secret.FillBytes(out)
	secret.SetInt64(0)
	term.SetInt64(0)

	return out, nil
}

// ParseShare decodes an encoded share into its point form.
func ParseShare(share []byte) (SharePoint, error) {
	if len(share) != interfaces.ShardDataSize {
		return SharePoint{}, fmt.Errorf("share must be %d bytes, got %d", interfaces.ShardDataSize, len(share))
	}
	if share[0] == 0 {
		return SharePoint{}, fmt.Errorf("share index must not be zero")
	}
	value := make([]byte, secretSize)
	copy(value, share[1:])
	return SharePoint{Index: int(share[0]), Value: value}, nil
}

// evalPoly evaluates the polynomial at x using Horner's method mod p.
func (s *Splitter) evalPoly(coeffs []*big.Int, x int64) *big.Int {
	xInt := big.NewInt(x)
	result := new(big.Int).Set(coeffs[len(coeffs)-1])
	for i := len(coeffs) - 2; i >= 0; i-- {
		result.Mul(result, xInt)
		result.Add(result, coeffs[i])
		result.Mod(result, s.prime)
	}
	return result
}

// randomFieldElement samples uniformly from [0, p) by rejection sampling on
// raw random bytes, avoiding modulo bias.
func (s *Splitter) randomFieldElement() (*big.Int, error) {
	buf := make([]byte, secretSize)
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		c := new(big.Int).SetBytes(buf)
		if c.Cmp(s.prime) < 0 {
			for i := range buf {
				buf[i] = 0
			}
			return c, nil
		}
	}
}
