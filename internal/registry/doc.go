// Package registry owns the lifecycle of every package's client instance:
// lazy connect with single-flight coalescing, idle reaping of stdio
// children, and restart/close of individual or all packages. It is the one
// place that decides when a new mcpclient.Client gets built and when an
// existing one gets torn down.
package registry
