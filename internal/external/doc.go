// Package external holds clients for the third-party services the backend
// calls at its edges: the NFT indexer, object storage and the payment
// processor. Each client bounds its calls with a resilience.Policy.
package external
