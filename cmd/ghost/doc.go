// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Ghost is an end-to-end encrypted chat between browsers and terminals
// that connect directly over WebRTC after swapping two short codes.
//
//	ghost host                 create a room and print the offer code
//	ghost join [code]          join with an offer or invite code
//	ghost bot --host|--join    answer chat lines with a local model
//	ghost demo                 two in-process participants, one a bot
//	ghost version              print build information
//
// The room credential ("<room_id>.<key>") and the offer travel out of
// band. An invite ("G:...") carries both in one string. With --relay,
// the offer and answer are swapped through a relay room instead of by
// hand; the relay only ever sees sealed frames.
//
// Configuration comes from --config or $GHOST_CONFIG (YAML or JSONC);
// flags override it.
package main
