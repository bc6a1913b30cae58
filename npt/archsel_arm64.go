//go:build arm64

package npt

// DefaultMetadata and DefaultOps select the ARM64 Stage-2 encoding as this
// build's native architecture. See archsel_amd64.go for the rationale.
var (
	DefaultMetadata = DefaultARM64
	DefaultOps      = Stage2Ops{}
)

// DefaultEntry mirrors archsel_amd64.go's alias for the ARM64 build.
type DefaultEntry = Stage2Entry
