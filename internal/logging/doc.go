// Package logging provides the category loggers subsystems log through.
//
// A [Registry] hands out one [Logger] per category and funnels every record
// into a single [Sink], normally a *store.Store. Categories are dotted names
// such as "MyApp.Billing.Invoices"; the host's root type name and the empty
// category both mean "the application itself".
//
// # Basic Usage
//
//	reg := logging.NewRegistry(st, logging.Host{RootName: "MyApp", RootNamespace: "MyApp"})
//	log := reg.Logger("MyApp.Billing")
//
//	log.Info("invoice sent")
//	log.Error("charge failed", err)
//
// # Faults
//
// The fault passed to a log call decides what is written:
//
//   - below the sink's minimum level nothing is written
//   - a fault tagged user-facing (errors.NewUserError) is never written
//   - an *errors.ClientFault is written as the client's own record, with
//     Side = Client, at the level of the log call
//   - anything else produces a server record whose stack trace is the
//     fault's own trace, else the fault's text, else, for Error and above,
//     the caller's stack
//
// # Client Bursts
//
// A [Coalescer] buffers client records and merges those from the same source
// (same level and stack trace) so that a burst of one fault is written once
// with its occurrence count.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created with WithContext share their parent's sink.
package logging
