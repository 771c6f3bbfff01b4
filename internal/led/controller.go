// Package led drives a board status LED from input streaming state.
package led

// Controller abstracts LED hardware control across different SBC boards.
// Implementations handle board-specific LED naming and capabilities.
type Controller interface {
	// Set switches an LED on or off with an optional pattern
	// ("solid", "blink", "heartbeat"); an empty pattern leaves the
	// trigger unchanged.
	Set(ledType string, enabled bool, pattern string) error

	// Available returns the LED types this board exposes, sorted.
	Available() []string

	// Patterns returns the patterns Set accepts.
	Patterns() []string
}
