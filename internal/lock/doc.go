// Package lock provides distributed mutual-exclusion leases and the
// manager that coordinates marketplace operations over them. Leases are
// token-authenticated and time-bounded so a crashed holder never wedges a
// resource. The manager layers bounded retries, automatic renewal,
// reentrancy tracking and a global acquisition order for multi-resource
// sections on top of the raw substrate.
package lock
