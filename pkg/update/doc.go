/*
Package update replaces the agent's own executable.

The sequence is download fully into memory, stage beside the live binary
(<exe>.tmp, mode 0755), retire the live binary to <exe>.bak, rename the
staged file into place, then exit so a supervisor relaunches the new
version. The backup rename is the commit point: everything before it is
side-effect free on failure, and a failure at the final rename restores
the backup to the live path.

Updates run detached from the triggering request, which returns as soon as
the update is scheduled.
*/
package update
