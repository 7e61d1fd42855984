// Package serialization saves and restores parameter snapshots of checked
// models.
//
// A snapshot records every parameter group of a model together with an
// optional summary of a gradient check, so a failing check can be replayed
// against exactly the same weights.
//
//	Format Structure:
//	  [4 bytes: Magic "GCHK"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [32 bytes: SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Group data: float64 LE, 64-byte aligned]
//
// Example usage:
//
//	// Save
//	snap, err := serialization.Capture(net, "dense-output")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	snap.SetCheck(res)
//	if err := snap.WriteFile("failing.gchk"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Restore into a network with the same layout
//	snap, err = serialization.ReadFile("failing.gchk")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := snap.Restore(net); err != nil {
//	    log.Fatal(err)
//	}
package serialization
