// ABOUTME: Build and product identification
// ABOUTME: Version is overridden at link time with -ldflags "-X ...version.Version=v1.2.3"
package version

// Version is the release this binary was built from
var Version = "dev"

const (
	Product      = "Sendspin Queue"
	Manufacturer = "Sendspin"
)

// String is the one-line identification used by --version and server hellos
func String() string {
	return Product + " " + Version
}
