// Package device owns the device→location and device→owner mapping.
//
// The caller-supplied device_id is the primary identity. Devices are
// created by the registration protocol, moved by re-registering, and
// unlinked (owner cleared) rather than deleted so measurement history
// keeps a valid foreign key.
package device
