// Package report 生成分班结果的文本与 CSV 报表
package report

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/fenban/fenban/pkg/model"
)

// 组报表的成员分隔符
const MembersSeparator = ";"

// BuildText 生成纯文本报表
// 每组一个小节：标题、表头、成员行与合计行。
func BuildText(groups [][]*model.Student) string {
	var b strings.Builder
	for i, group := range groups {
		fmt.Fprintf(&b, "=== Group %d ===\n", i+1)
		fmt.Fprintf(&b, "%-30s | %-5s\n", "Name", "Sex")
		b.WriteString(strings.Repeat("-", 40))
		b.WriteByte('\n')
		for _, s := range group {
			fmt.Fprintf(&b, "%-30s | %-5s\n", s.Name, s.Sex)
		}
		fmt.Fprintf(&b, "Total: %d students\n\n", len(group))
	}
	return strings.TrimSpace(b.String()) + "\n"
}

// BuildCSV 生成小组结果 CSV
// 表头 timestamp,members；每组一行，成员姓名以分号连接。
// timestamp 为零值时取当前 UTC 时间。
func BuildCSV(groups [][]*model.Student, timestamp time.Time) string {
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	ts := timestamp.Format(time.RFC3339)

	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write([]string{"timestamp", "members"})
	for _, group := range groups {
		names := make([]string, 0, len(group))
		for _, s := range group {
			names = append(names, s.Name)
		}
		w.Write([]string{ts, strings.Join(names, MembersSeparator)})
	}
	w.Flush()
	return b.String()
}

// BuildClassCSV 生成班级结果 CSV
// 每名学生一行：班级名在首列，随后是学号、性别与分类属性。
func BuildClassCSV(groups [][]*model.Student, classNames []string, attrs []string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)

	header := append([]string{"class", "id", "sex"}, attrs...)
	w.Write(header)

	for g, group := range groups {
		className := fmt.Sprintf("Class %d", g+1)
		if g < len(classNames) && classNames[g] != "" {
			className = classNames[g]
		}
		for _, s := range group {
			row := []string{className, s.SourceID, string(s.Sex)}
			for _, attr := range attrs {
				row = append(row, s.Attribute(attr))
			}
			w.Write(row)
		}
	}
	w.Flush()
	return b.String()
}
