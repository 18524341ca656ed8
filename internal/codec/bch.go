package codec

// Systematic BCH(63, 39) block code with design distance 9, correcting
// up to 4 bit errors per codeword. The generator polynomial is the
// product of the minimal polynomials of α, α^3, α^5 and α^7 over
// GF(2), derived from the field tables at init so the encoder and
// decoder can never disagree on it.

const (
	// BlockLength is the codeword length in bits.
	BlockLength = 63
	// MessageLength is the number of data bits per codeword; identifiers
	// must fit in this many bits.
	MessageLength = 39
	// ParityLength is the number of parity bits per codeword.
	ParityLength = BlockLength - MessageLength
	// CorrectionRadius is the guaranteed number of correctable bit
	// errors per codeword. Beyond it, decoding fails or miscorrects.
	CorrectionRadius = 4
)

// generator holds the degree-24 generator polynomial; bit i is the
// coefficient of x^i. Referencing gfExp makes Go initialize the field
// tables first.
var generator = buildGenerator()

func buildGenerator() uint64 {
	g := []byte{1}
	for _, e := range []int{1, 3, 5, 7} {
		// Minimal polynomial of α^e: product of (x + α^c) over the
		// cyclotomic coset {e, 2e, 4e, ...} mod 63.
		m := []byte{1}
		c := e
		for {
			m = gfPolyMul(m, []byte{gfExp[c], 1})
			c = c * 2 % fieldOrder
			if c == e {
				break
			}
		}
		g = gfPolyMul(g, m)
	}
	if len(g) != ParityLength+1 {
		panic("bch: generator degree mismatch")
	}
	var gen uint64
	for i, coeff := range g {
		switch coeff {
		case 0:
		case 1:
			gen |= 1 << uint(i)
		default:
			panic("bch: generator not binary")
		}
	}
	return gen
}

// encodeBlock computes the systematic codeword for a message of up to
// MessageLength bits. Bit i of the result is the coefficient of x^i;
// the message occupies the high MessageLength bits.
func encodeBlock(msg uint64) uint64 {
	shifted := msg << ParityLength
	rem := shifted
	for i := BlockLength - 1; i >= ParityLength; i-- {
		if rem&(1<<uint(i)) != 0 {
			rem ^= generator << uint(i-ParityLength)
		}
	}
	return shifted | rem
}

// decodeBlock corrects up to CorrectionRadius bit errors in place and
// returns the corrected codeword and the number of corrected bits.
// ok is false when the word is not within the correction radius of any
// codeword the decoder can reach.
func decodeBlock(cw uint64) (corrected uint64, errs int, ok bool) {
	synd := syndromes(cw)
	zero := true
	for j := 1; j <= 2*CorrectionRadius; j++ {
		if synd[j] != 0 {
			zero = false
			break
		}
	}
	if zero {
		return cw, 0, true
	}

	sigma := berlekampMassey(synd)
	degree := len(sigma) - 1
	if degree < 1 || degree > CorrectionRadius {
		return 0, 0, false
	}

	// Chien search: position i is in error when σ(α^{-i}) = 0.
	var positions []int
	for i := 0; i < BlockLength; i++ {
		v := sigma[0]
		for k := 1; k < len(sigma); k++ {
			if sigma[k] == 0 {
				continue
			}
			exp := (fieldOrder - i) % fieldOrder * k % fieldOrder
			v ^= gfMul(sigma[k], gfExp[exp])
		}
		if v == 0 {
			positions = append(positions, i)
		}
	}
	if len(positions) != degree {
		return 0, 0, false
	}

	for _, p := range positions {
		cw ^= 1 << uint(p)
	}

	// The corrected word must be a codeword; a nonzero residual
	// syndrome means the error pattern was outside the radius.
	resid := syndromes(cw)
	for j := 1; j <= 2*CorrectionRadius; j++ {
		if resid[j] != 0 {
			return 0, 0, false
		}
	}
	return cw, degree, true
}

// syndromes evaluates the received polynomial at α^1 .. α^{2t}.
// Index 0 is unused.
func syndromes(cw uint64) [2*CorrectionRadius + 1]byte {
	var s [2*CorrectionRadius + 1]byte
	for i := 0; i < BlockLength; i++ {
		if cw&(1<<uint(i)) == 0 {
			continue
		}
		for j := 1; j <= 2*CorrectionRadius; j++ {
			s[j] ^= gfExp[i*j%fieldOrder]
		}
	}
	return s
}

// berlekampMassey computes the error locator polynomial σ(x) from the
// syndromes. The returned slice has σ(0)=1 at index 0 and is trimmed
// to its true degree.
func berlekampMassey(s [2*CorrectionRadius + 1]byte) []byte {
	sigma := []byte{1}
	prev := []byte{1}
	length := 0
	shift := 1
	prevDisc := byte(1)

	for n := 0; n < 2*CorrectionRadius; n++ {
		d := s[n+1]
		for i := 1; i <= length && i < len(sigma); i++ {
			d ^= gfMul(sigma[i], s[n+1-i])
		}
		if d == 0 {
			shift++
			continue
		}
		next := addScaledShifted(sigma, prev, gfMul(d, gfInv(prevDisc)), shift)
		if 2*length <= n {
			prev = sigma
			prevDisc = d
			length = n + 1 - length
			shift = 1
		} else {
			shift++
		}
		sigma = next
	}

	for len(sigma) > 1 && sigma[len(sigma)-1] == 0 {
		sigma = sigma[:len(sigma)-1]
	}
	return sigma
}

// addScaledShifted returns a + coef * x^shift * b.
func addScaledShifted(a, b []byte, coef byte, shift int) []byte {
	size := len(a)
	if n := len(b) + shift; n > size {
		size = n
	}
	out := make([]byte, size)
	copy(out, a)
	for i, v := range b {
		if v != 0 {
			out[i+shift] ^= gfMul(coef, v)
		}
	}
	return out
}
