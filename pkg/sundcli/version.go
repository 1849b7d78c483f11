package sundcli

import (
	"context"
	"fmt"
	"io"
	"os"
)

// VersionCheckEnv is the environment variable name used to suppress version mismatch warnings.
// Set to any non-empty value to disable warnings (useful for scripts and CI).
const VersionCheckEnv = "SUNDRIVEN_SUPPRESS_VERSION_CHECK"

// CheckVersionMismatch warns on w when the daemon reports a different
// version than expectedVersion. It never fails the caller.
func (c *Client) CheckVersionMismatch(ctx context.Context, w io.Writer, expectedVersion string) {
	if expectedVersion == "" || os.Getenv(VersionCheckEnv) != "" {
		return
	}

	v, err := c.Version(ctx)
	if err != nil {
		fmt.Fprintf(w, "Warning: could not verify daemon version: %v\n", err)
		return
	}

	if v.Version != expectedVersion {
		fmt.Fprintf(w, "Warning: CLI version (%s) differs from daemon version (%s)\n",
			expectedVersion, v.Version)
		fmt.Fprintf(w, "Run 'sundriven stop-daemon' to restart the daemon with the new version.\n")
	}
}
