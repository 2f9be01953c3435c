package vault

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"github.com/premierstats/fpl-mcp/internal/platform/logging"
)

// localAdminBit is set in the first octet of locally administered MAC
// addresses. Some platforms randomize the hardware address and set this bit,
// which would make the derived key unstable across reboots.
const localAdminBit = 0x02

// machineIdentifier returns stable machine-specific bytes for key derivation.
// Preference order: first universally administered hardware address, then a
// host fingerprint built from hostname and platform. The fallback is logged
// because credentials encrypted against it stop decrypting if the hostname
// changes.
func machineIdentifier(logger *logging.Logger) []byte {
	if addr := stableHardwareAddr(); addr != nil {
		return addr
	}

	logger.Warn("no stable hardware address found; deriving key from host fingerprint instead")
	return hostFingerprint()
}

func stableHardwareAddr() []byte {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addr := iface.HardwareAddr
		if len(addr) < 6 {
			continue
		}
		if addr[0]&localAdminBit != 0 {
			// Randomized address, not tied to the physical machine.
			continue
		}
		out := make([]byte, len(addr))
		copy(out, addr)
		return out
	}

	return nil
}

func hostFingerprint() []byte {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	return []byte(fmt.Sprintf("%s|%s|%s", hostname, runtime.GOOS, runtime.GOARCH))
}
