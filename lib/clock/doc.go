// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that every
// suspension point with a deadline (ICE gathering, connect, receive)
// can be tested without wall-clock sleeps.
//
// Production code holds a Clock and calls Real() by default:
//
//	type Session struct {
//	    clock clock.Clock
//	}
//
// Tests inject a FakeClock, wait for the code under test to register
// its timer, and then advance time deterministically:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { errs <- session.WaitConnected(ctx, 5*time.Second) }()
//	c.WaitForTimers(1)
//	c.Advance(5 * time.Second)
package clock
