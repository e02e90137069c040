package models

import "fmt"

// MalformedRecordError はロード時に必須項目が解釈できなかったことを表します。
// 部分的なデータセットを作らないため、1行でも失敗すればロード全体が失敗します。
type MalformedRecordError struct {
	Row    int    // ヘッダーを除いた1始まりの行番号
	Field  string // 問題のあった列名
	Value  string // 入力値そのまま
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("行%d: 列 '%s' の値 '%s' を解釈できません（%s）", e.Row, e.Field, e.Value, e.Reason)
}

// EmptyDatasetError は0行のビューに対してスカラー集計が要求されたことを表します。
// 「合計が0」と「該当データなし」をUI側で区別できるよう、番兵値は返しません。
type EmptyDatasetError struct {
	Operation string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s: 対象データが0件です", e.Operation)
}

// InsufficientHistoryError は年次予測に必要な履歴（2年以上）が無いことを表します。
type InsufficientHistoryError struct {
	Years int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("年次予測には2年以上の履歴が必要です（現在%d年分）", e.Years)
}
