/*
Package config loads and persists the agent's small local config record:
token, node identity, panel address, listen port and resource auto-limits.

The file (config.yml by default) is read once at startup; environment
variables (NODEGRID_TOKEN, NODEGRID_NODE_ID, NODEGRID_PANEL_URL,
NODEGRID_PORT) serve as a fallback when no file exists. The only writer at
runtime is a successful token rotation, which rewrites the file atomically
via a temp-file-then-rename sequence.

Zero-valued RAM/disk limits mean "auto": ApplyAutoLimits derives them as
95% of host memory and of the root mount, using gopsutil.
*/
package config
