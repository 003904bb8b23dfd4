// Package parser rebuilds desktop notifications from dbus-monitor output.
//
// The input is positional. A line containing the boundary marker
// (member=Notify) opens an event block; the next five lines are the first
// five arguments of org.freedesktop.Notifications.Notify:
//
//	offset 1  app_name      -> Record.App
//	offset 2  replaces_id
//	offset 3  app_icon
//	offset 4  summary       -> Record.Sender
//	offset 5  body          -> Record.Subject (block ends here)
//
// Nothing validates that a block actually matches this layout. If the bus
// monitor changes its output format, fields are silently extracted from the
// wrong lines rather than rejected.
package parser
