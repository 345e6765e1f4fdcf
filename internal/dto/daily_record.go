package dto

// DailyRecordRequest defines payload for writing a daily record.
type DailyRecordRequest struct {
	StudentID  string   `json:"student_id" validate:"required,uuid"`
	RecordDate string   `json:"record_date" validate:"required,datetime=2006-01-02"`
	Attendance string   `json:"attendance" validate:"required,oneof=PRESENT ABSENT LATE"`
	Homework   string   `json:"homework" validate:"max=200"`
	TestScore  *float64 `json:"test_score,omitempty" validate:"omitempty,min=0,max=999.99"`
	Memo       string   `json:"memo" validate:"max=1000"`
}

// DailyRecordQuery captures list query parameters.
type DailyRecordQuery struct {
	StudentID string `form:"student_id"`
	From      string `form:"from"`
	To        string `form:"to"`
}
