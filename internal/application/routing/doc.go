// Package routing selects workers for tasks. Eligibility requires a
// declared affinity for the task type, every required capability, and a
// health score above 0.5; the choice among eligible candidates is made by
// an interchangeable named strategy.
package routing
