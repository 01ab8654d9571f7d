/*
Package maa implements the core of a cycle-level model of a Memory Access
Accelerator: a near-memory co-processor that executes instructions encoded by
a host CPU over a memory-mapped address range, using a local scratchpad and a
bank of functional units to drive cache-coherent bulk memory traffic.

The package models the controller (dispatch, dependency tracking, issue,
completion, and port back-pressure), the stream access unit (contiguous-with-
stride gather), the scratchpad and register file, and the address-range
decoder that routes host-side transactions to controller operations. The
indirect-access unit, ALU, range-fuser, invalidator compute logic, the DRAM
timing model, the cache, and the host CPU itself are external collaborators;
this package describes only the contracts it exposes to them.
*/
package maa
