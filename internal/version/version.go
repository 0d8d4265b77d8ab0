// ABOUTME: Version information for the meter
// ABOUTME: Reported by --version and in the level feed greeting
package version

const (
	Version      = "0.4.0"
	Product      = "peakmeter"
	Manufacturer = "Resonate Protocol"
)

// String returns "product version".
func String() string {
	return Product + " " + Version
}
