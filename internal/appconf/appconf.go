// Package appconf holds application-level configuration shared across packages.
package appconf

type Environment int

const (
	Test Environment = iota
	Development
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a CLI flag value to an Environment.
// Unrecognized values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch env {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}

// Config holds settings that apply to the whole assembler run.
type Config struct {
	Env         Environment
	Verbose     bool
	MetricsAddr string // optional address for the /metrics endpoint; empty disables it
}
