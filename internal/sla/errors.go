package sla

import "errors"

// SLA and payment errors.
var (
	// ErrOutageStillOpen is returned when SLA or payment state is
	// requested for an unresolved outage.
	ErrOutageStillOpen = errors.New("outage is still open")
	// ErrSLANotBreached is returned when payment generation is triggered
	// for an outage that met its SLA.
	ErrSLANotBreached = errors.New("sla was met, no penalty applies")
	// ErrPaymentExists is returned on a duplicate payment trigger.
	ErrPaymentExists = errors.New("payment already generated for ticket")
	// ErrPaymentNotFound is returned when no payment record exists.
	ErrPaymentNotFound = errors.New("payment not found")
)
