package codec

// GF(2^6) arithmetic for the BCH code. The field is generated by the
// primitive polynomial x^6 + x + 1; exp/log tables are built once at
// package init.

const (
	fieldOrder = 63   // order of the multiplicative group
	primPoly   = 0x43 // x^6 + x + 1
)

// Initialized as package variables, not in init, so that dependent
// values like the generator polynomial are built after the tables
// regardless of file order.
var gfExp, gfLog = buildFieldTables()

func buildFieldTables() (exp [2 * fieldOrder]byte, log [fieldOrder + 1]byte) {
	x := byte(1)
	for i := 0; i < fieldOrder; i++ {
		exp[i] = x
		log[x] = byte(i)
		x <<= 1
		if x&0x40 != 0 {
			x ^= primPoly
		}
	}
	// Doubled table so products of two logs never need a modulo.
	for i := fieldOrder; i < len(exp); i++ {
		exp[i] = exp[i-fieldOrder]
	}
	return exp, log
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

// gfInv returns the multiplicative inverse of a. a must be nonzero.
func gfInv(a byte) byte {
	return gfExp[fieldOrder-int(gfLog[a])]
}

// gfPolyMul multiplies two polynomials with GF(2^6) coefficients.
// p[i] is the coefficient of x^i.
func gfPolyMul(p, q []byte) []byte {
	out := make([]byte, len(p)+len(q)-1)
	for i, a := range p {
		if a == 0 {
			continue
		}
		for j, b := range q {
			out[i+j] ^= gfMul(a, b)
		}
	}
	return out
}
