package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/preschool/internal/passcode/usecase.(*Usecase).VerifyCode(...)
	/src/internal/passcode/usecase/verify.go:41 +0x1a4
github.com/redis/go-redis/v9.(*baseClient).process(...)
	/go/pkg/mod/github.com/redis/go-redis/v9@v9.17.2/redis.go:400 +0x10
`)

	got := InternalPaths(stack)

	assert.Equal(t, []string{"internal/passcode/usecase/verify.go:41"}, got)
	assert.Empty(t, InternalPaths(nil))
}
