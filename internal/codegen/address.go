// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package codegen

// BankOffset separates the replicated memory banks used when data is
// duplicated across groups of PEs.
const BankOffset = 100000

// Bank returns the duplicated memory bank a PE reads from. The band edges
// 31, 47 and 63 are exclusive on both sides and fall back to bank 0.
func Bank(dataDup, pe int) int {
	switch dataDup {
	case 2:
		if pe > 15 {
			return 1
		}
	case 4:
		switch {
		case pe > 15 && pe < 31:
			return 1
		case pe > 31 && pe < 47:
			return 2
		case pe > 47 && pe < 63:
			return 3
		}
	}
	return 0
}

// ClusterAddress computes the address a PE loads into a base register. A
// zero stride leaves base unchanged; otherwise the cluster's stride and the
// PE's bank are added.
func ClusterAddress(base, stride, cluster, dataDup, pe int) int {
	if stride == 0 {
		return base
	}
	return base + stride*cluster + Bank(dataDup, pe)*BankOffset
}
