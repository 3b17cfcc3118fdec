// Package server hosts the Fiber HTTP service and the startup orchestration that
// turns configuration into running modules. Host wires config → unit resolver →
// plugin.Loader registration → Fiber app → activation, then mounts the shell
// page, the /-/modules diagnostics and the composite static namespace.
// Keep exports narrow and accept explicit dependencies so tests can inject an
// isolated unit catalog instead of the process-wide one.
package server
