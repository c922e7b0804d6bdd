package domain

// Execution pairs an Order snapshot with one OrderFill recorded against it,
// the unit routed from a Broker back to the submitting Strategy's
// on_execution callback (spec.md §4.H step 3, §4.I, §4.J step 4).
type Execution struct {
	Order Order
	Fill  OrderFill
}
