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

import "strings"

// dustDepositErrors are the substrings identifying a deposit the
// sidechain rejected for being below the dust threshold, which the
// deposit relay treats as a silent success rather than an error.
var dustDepositErrors = []string{
	"Deposit amount is below minimum",
	"Deposit amount is too small to pay its spending fee",
}

// benignBroadcastErrors are the substrings identifying a checkpoint
// transaction that was already broadcast or already mined, which the
// checkpoint relay treats as a silent success.
var benignBroadcastErrors = []string{
	"bad-txns-inputs-missingorspent",
	"Transaction already in block chain",
}

func matchesAny(err error, substrings []string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isDustDeposit(err error) bool { return matchesAny(err, dustDepositErrors) }
func isBenignBroadcast(err error) bool { return matchesAny(err, benignBroadcastErrors) }
