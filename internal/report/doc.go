// Package report renders stored runs: an HTML offset chart, a PNG depth
// trace and a per-condition PIN summary.
package report
