// Package observability provides the structured logger and Prometheus
// metrics shared by the payer, the payee server and the CLI.
package observability
