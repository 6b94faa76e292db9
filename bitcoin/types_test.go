// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package bitcoin

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func testSignatoryKey(t *testing.T, seed byte) SignatoryKey {
	t.Helper()
	var buf [32]byte
	buf[31] = seed
	priv, pub := btcec.PrivKeyFromBytes(buf[:])
	_ = priv
	return SignatoryKey{PubKey: pub, Voting: uint64(seed) + 1}
}

func testSignatorySet(t *testing.T, index uint32, timeout uint64, n int) *SignatorySet {
	t.Helper()
	keys := make([]SignatoryKey, n)
	for i := 0; i < n; i++ {
		keys[i] = testSignatoryKey(t, byte(i+1))
	}
	return &SignatorySet{SigsetIndex: index, Keys: keys, DepositTimeout: timeout}
}

func testAddress(b byte) Address {
	var a Address
	a[0] = b
	return a
}

func TestAddressRoundTrip(t *testing.T) {
	addr := testAddress(0x42)
	s := addr.String()

	got, err := ParseAddress(s)
	require.NoError(t, err)
	require.Equal(t, addr, got)
}

func TestParseAddressRejectsWrongPrefix(t *testing.T) {
	_, err := ParseAddress("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq")
	require.Error(t, err)
}

func TestOutputScriptIsDeterministic(t *testing.T) {
	sigset := testSignatorySet(t, 1, 1000, 3)
	addr := testAddress(0x01)

	a, err := sigset.OutputScript(addr)
	require.NoError(t, err)
	b, err := sigset.OutputScript(addr)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestOutputScriptDiffersByAddress(t *testing.T) {
	sigset := testSignatorySet(t, 1, 1000, 3)

	a, err := sigset.OutputScript(testAddress(0x01))
	require.NoError(t, err)
	b, err := sigset.OutputScript(testAddress(0x02))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOutputScriptDiffersBySigset(t *testing.T) {
	addr := testAddress(0x01)
	a, err := testSignatorySet(t, 1, 1000, 3).OutputScript(addr)
	require.NoError(t, err)
	b, err := testSignatorySet(t, 2, 1000, 3).OutputScript(addr)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestSignatorySetCloneIsIndependent(t *testing.T) {
	sigset := testSignatorySet(t, 1, 1000, 2)
	clone := sigset.Clone()

	clone.Keys[0].Voting = 99
	require.NotEqual(t, sigset.Keys[0].Voting, clone.Keys[0].Voting)
}
