// Command httpserver runs a carol node: it accepts WebAssembly binaries,
// creates machines from them and serves activations and machine HTTP
// traffic.
//
// Example:
//
//	httpserver --listen-addr=0.0.0.0:8000 \
//	    --base-domain=carol.example \
//	    --signing-key-seed=$(openssl rand -hex 32)
//
// With a base domain, a machine is reachable at <machine label>.<base
// domain>, or at any host with a CNAME pointing there. The node shuts down
// gracefully on SIGINT or SIGTERM.
package main
