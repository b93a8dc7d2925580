// Package qstate implements a query-keyed entity cache.
//
// A Manager holds the entities received for one scope (for example a site)
// and maps canonical query descriptors to ordered result pages with a total
// found count. Managers are values: every state-changing call returns a new
// Manager and no-op calls return the receiver, so callers detect change by
// pointer comparison.
//
//	m := qstate.NewManager(qstate.WithDefaultQuery(qstate.Descriptor{"page": 1}))
//	m = m.Receive(themes, qstate.WithQuery(qstate.Descriptor{"search": ""}), qstate.WithFound(12))
//	m = m.Receive([]qstate.Entity{{"id": "mood", "status": "pending"}}, qstate.AsPatch())
//	m = m.RemoveItem("mood")
//
// Export and FromSnapshot convert a Manager to and from its durable form.
package qstate
