package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// NumGPRs is the number of general-purpose architectural registers (R0-R15).
const NumGPRs = 16

// RegisterX is the special register that receives the BAL return address.
const RegisterX = "X"

// ArchRegisterNames returns every architectural register name: R0..R15, X.
func ArchRegisterNames() []string {
	names := make([]string, 0, NumGPRs+1)
	for i := 0; i < NumGPRs; i++ {
		names = append(names, fmt.Sprintf("R%d", i))
	}
	return append(names, RegisterX)
}

// IsRegisterName reports whether token names an architectural register.
func IsRegisterName(token string) bool {
	if token == RegisterX {
		return true
	}
	if !strings.HasPrefix(token, "R") {
		return false
	}
	n, err := strconv.Atoi(token[1:])
	if err != nil || token[1:] != strconv.Itoa(n) {
		return false
	}
	return n >= 0 && n < NumGPRs
}
