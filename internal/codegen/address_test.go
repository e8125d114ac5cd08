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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClusterAddress(t *testing.T) {
	tests := []struct {
		name    string
		base    int
		stride  int
		cluster int
		dataDup int
		pe      int
		want    int
	}{
		{"no stride", 4096, 0, 3, 2, 20, 4096},
		{"dup1", 4096, 256, 2, 1, 40, 4096 + 512},
		{"dup2 low", 4096, 256, 0, 2, 15, 4096},
		{"dup2 high", 4096, 256, 1, 2, 20, 104352},
		{"dup4 band0", 4096, 256, 0, 4, 15, 4096},
		{"dup4 band1", 4096, 256, 1, 4, 16, 4096 + 256 + 100000},
		{"dup4 edge31", 4096, 256, 1, 4, 31, 4096 + 256},
		{"dup4 band2", 4096, 256, 2, 4, 32, 4096 + 512 + 200000},
		{"dup4 edge47", 4096, 256, 2, 4, 47, 4096 + 512},
		{"dup4 band3", 4096, 256, 3, 4, 48, 4096 + 768 + 300000},
		{"dup4 edge63", 4096, 256, 3, 4, 63, 4096 + 768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClusterAddress(tt.base, tt.stride, tt.cluster, tt.dataDup, tt.pe))
		})
	}
}

func TestBank(t *testing.T) {
	assert.Equal(t, 0, Bank(1, 40))
	assert.Equal(t, 1, Bank(2, 16))
	assert.Equal(t, 1, Bank(2, 63))
	assert.Equal(t, 3, Bank(4, 62))
	assert.Equal(t, 0, Bank(4, 64))
}
