// Package hypothesis stores the product hypothesis: the statement a product is built to test,
// how success is measured, and the assumptions, initiatives and themes behind it.
package hypothesis
