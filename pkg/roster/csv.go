// Package roster 负责学生名册的加载与历史配对提取
package roster

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/fenban/fenban/pkg/errors"
	"github.com/fenban/fenban/pkg/model"
)

// 班级名册的分类属性列名
const (
	AttrLanguage = "language"
	AttrSubject  = "subject"
	AttrOrigin   = "origin"
)

// LoadClassRoster 从 CSV 读取班级分班名册
// 列序固定：sex, id, language, subject, origin。
// 空行与列数不足的行跳过；id 不是整数的行视为表头跳过。
// 学生 ID 按读入顺序分配为 0 基稠密序号，原始学号保存在 SourceID。
func LoadClassRoster(r io.Reader) ([]*model.Student, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var students []*model.Student
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "名册 CSV 解析失败")
		}

		if isBlankRow(row) || len(row) < 5 {
			continue
		}

		idRaw := strings.TrimSpace(row[1])
		sourceID, err := strconv.Atoi(idRaw)
		if err != nil {
			// 表头行（如 "Køn,Navn,..."）
			continue
		}

		students = append(students, &model.Student{
			ID:       len(students),
			SourceID: idRaw,
			Name:     strconv.Itoa(sourceID),
			Sex:      model.NormalizeSex(row[0]),
			Attributes: map[string]string{
				AttrLanguage: strings.TrimSpace(row[2]),
				AttrSubject:  strings.TrimSpace(row[3]),
				AttrOrigin:   strings.TrimSpace(row[4]),
			},
		})
	}

	if len(students) == 0 {
		return nil, errors.New(errors.CodeEmptyRoster, "名册中没有可用的学生行")
	}
	return students, nil
}

// LoadGroupRoster 从 CSV 读取学习小组名册
// 列序固定：sex, firstname, lastname。
// 姓名为 firstname 与 lastname 去空格后拼接；两者皆空时生成占位姓名。
// 性别无法归一化为 F/M 的行整行丢弃（含表头行）。
func LoadGroupRoster(r io.Reader) ([]*model.Student, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var students []*model.Student
	rowIdx := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "名册 CSV 解析失败")
		}
		rowIdx++

		if isBlankRow(row) || len(row) < 3 {
			continue
		}

		sex := model.NormalizeSex(row[0])
		if !sex.Valid() {
			continue
		}

		var parts []string
		for _, p := range []string{row[1], row[2]} {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		name := strings.Join(parts, " ")
		if name == "" {
			name = "Student " + strconv.Itoa(rowIdx)
		}

		students = append(students, &model.Student{
			ID:   len(students),
			Name: name,
			Sex:  sex,
		})
	}

	if len(students) == 0 {
		return nil, errors.New(errors.CodeEmptyRoster, "名册中没有可用的学生行")
	}
	return students, nil
}

// isBlankRow 检查整行是否为空
func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
