// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package newsfeed

import (
	"fmt"
	"strconv"
	"strings"
)

// DateLayout 对外日期格式
const DateLayout = "2006-01-02"

var daysInMonth = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear 公历闰年规则：能被 4 整除且不能被 100 整除，或能被 400 整除
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysIn 返回某年某月天数
func DaysIn(year, month int) int {
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysInMonth[month]
}

// ParseDate 解析 YYYY-MM-DD（月、日允许不补零），并校验取值范围
func ParseDate(s string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid date %q: component %q is not a number", s, p)
		}
		nums[i] = n
	}
	year, month, day = nums[0], nums[1], nums[2]
	if year < 1 || year > 9999 {
		return 0, 0, 0, fmt.Errorf("invalid date %q: year out of range", s)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid date %q: month out of range", s)
	}
	if day < 1 || day > DaysIn(year, month) {
		return 0, 0, 0, fmt.Errorf("invalid date %q: day out of range", s)
	}
	return year, month, day, nil
}

// FormatDate 输出补零的 YYYY-MM-DD
func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// CanonicalDate 合法日期统一为补零形式；非法输入原样返回，由 ValidateDate 报错
func CanonicalDate(s string) string {
	year, month, day, err := ParseDate(s)
	if err != nil {
		return s
	}
	return FormatDate(year, month, day)
}

// ValidateDate 校验日期字符串
func ValidateDate(s string) error {
	_, _, _, err := ParseDate(s)
	return err
}

// NextDate 返回下一个日历日
func NextDate(current string) (string, error) {
	year, month, day, err := ParseDate(current)
	if err != nil {
		return "", err
	}
	day++
	if day > DaysIn(year, month) {
		day = 1
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return FormatDate(year, month, day), nil
}
