/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package str

import (
	"math/rand"
	"strconv"
	"strings"
)

const randomStrOptions = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomStr returns num random alphanumeric characters. Not for secrets.
func RandomStr(num int) string {
	buf := make([]byte, num)
	for i := range buf {
		buf[i] = randomStrOptions[rand.Intn(len(randomStrOptions))]
	}
	return string(buf)
}

// ConvertDollarPlaceholder rewrites ? placeholders as $1, $2... when dbType is postgres.
// Question marks inside single-quoted literals are left alone.
func ConvertDollarPlaceholder(sql, dbType string) string {
	if dbType != "postgres" {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n, quoted := 0, false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
