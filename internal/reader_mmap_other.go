//go:build !(linux || darwin)

package internal

import (
	"fmt"
	"os"
	"runtime"
)

func newMappedReader(*os.File) (contentReader, error) {
	return nil, fmt.Errorf("memory mapped reads are not supported on %s", runtime.GOOS)
}
