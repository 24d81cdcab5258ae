package release

import (
	"errors"
	"fmt"
)

// Product selects one of the supported product lines.
type Product int

// Supported product lines. The set is closed; there is no plugin mechanism.
const (
	// Browser is the mainline web browser release channel.
	Browser Product = iota
	// BrowserESR is the extended-support browser release channel.
	BrowserESR
	// MailClient is the mail and news client.
	MailClient
	// Suite is the integrated internet application suite.
	Suite
)

// Arch selects the target processor architecture.
type Arch int

// Supported architectures.
const (
	// X86 is 32-bit x86.
	X86 Arch = iota
	// X64 is 64-bit x86.
	X64
)

// Locale is the only release locale the tool packages.
const Locale = "en-US"

var (
	errUnknownProduct      = errors.New("unknown product")
	errUnknownArchitecture = errors.New("unknown architecture")
)

// ParseProduct maps a configuration value to a Product.
func ParseProduct(s string) (Product, error) {
	switch s {
	case "firefox":
		return Browser, nil
	case "firefox-esr":
		return BrowserESR, nil
	case "thunderbird":
		return MailClient, nil
	case "seamonkey":
		return Suite, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected firefox, firefox-esr, thunderbird or seamonkey)", errUnknownProduct, s)
	}
}

// String returns the configuration name of the product.
func (p Product) String() string {
	switch p {
	case Browser:
		return "firefox"
	case BrowserESR:
		return "firefox-esr"
	case MailClient:
		return "thunderbird"
	case Suite:
		return "seamonkey"
	default:
		return fmt.Sprintf("product(%d)", int(p))
	}
}

// ParseArch maps a configuration value to an Arch.
func ParseArch(s string) (Arch, error) {
	switch s {
	case "x86":
		return X86, nil
	case "x64":
		return X64, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected x86 or x64)", errUnknownArchitecture, s)
	}
}

// String returns the configuration name of the architecture.
func (a Arch) String() string {
	if a == X86 {
		return "x86"
	}

	return "x64"
}

// PlatformDir returns the release-directory component for the architecture,
// as used in the vendor's published directory layout.
func (a Arch) PlatformDir() string {
	if a == X86 {
		return "linux-i686"
	}

	return "linux-x86_64"
}

// DebArch returns the Debian architecture tag for the architecture.
func (a Arch) DebArch() string {
	if a == X86 {
		return "i386"
	}

	return "amd64"
}
