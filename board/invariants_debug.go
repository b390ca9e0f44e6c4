//go:build c4debug

package board

const checkInvariants = true
