//go:build llama

package llama

// Link against libllama.so placed next to the binary (./bin), with an rpath
// of $ORIGIN so no environment variables are needed at run time.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
*/
import "C"
