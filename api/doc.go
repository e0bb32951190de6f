/*
Package api holds the wire types of the node's HTTP API and the server
configuration shared by the command and the httpserver package.

# Endpoints

API hosts (the base domain, IP addresses, localhost and configured
passthrough hosts) serve:

	GET  /                                 RootInfo
	POST /binaries                         upload a binary, BinaryCreated
	GET  /binaries/{binary_id}             204 if the binary exists
	POST /binaries/{binary_id}             create a machine, MachineCreated
	GET  /binaries/{binary_id}/api         BinaryDescription
	GET  /machines/{machine_id}            GetMachine
	POST /machines/{machine_id}/activate/{name}
	POST /machines/{machine_id}            activation with an empty name
	ANY  /machines/{machine_id}/http/...   forwarded to the machine

Creation endpoints answer 201 with a Location header for new entries and
200 for existing ones. Errors are JSON objects with an "error" message and,
for guest panics, a "backtrace" field.

Hosts of the form <machine label>.<base domain>, or hosts whose CNAME points
at one, are forwarded to that machine with the full request path.

The clients subpackage is a typed Go client for these endpoints.
*/
package api
