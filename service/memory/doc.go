// Package memory is the in-memory stand-in for the kernel's virtual memory
// services: a fixed pool of pages handed out as kernel stacks and process
// address spaces. Exhausting the pool is how out-of-memory conditions reach
// the process table.
package memory
