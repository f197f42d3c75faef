// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		size, alignment int
		exp             error
	}{
		{1, 1, nil},
		{48, 8, nil},
		{48, 4096, nil},
		{0, 8, ErrInvalidSize},
		{-1, 8, ErrInvalidSize},
		{8, 0, ErrInvalidAlignment},
		{8, 3, ErrInvalidAlignment},
		{8, -16, ErrInvalidAlignment},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d_%d", test.size, test.alignment), func(t *testing.T) {
			err := validate(test.size, test.alignment)
			if test.exp == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, test.exp)
			}
		})
	}
}

func TestAddressOf(t *testing.T) {
	buf := make([]byte, 16)
	assert.Equal(t, addressOf(buf)+4, addressOf(buf[4:]))
	assert.Zero(t, addressOf(nil))
}

func TestPageStateString(t *testing.T) {
	assert.Equal(t, "FREE", PageFree.String())
	assert.Equal(t, "USED", PageUsed.String())
	assert.Equal(t, "DLTD", PageDeleted.String())
	assert.Equal(t, "INVALID(0)", PageState(0).String())
}
