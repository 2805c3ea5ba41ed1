package dto

// ChecklistRowDTO: строка исходного списка измерений (alias,key,owner,description)
type ChecklistRowDTO struct {
	Alias       string `json:"alias"`
	Key         string `json:"key"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
}

// ChecklistBuildDTO: результат построения чек-листа
type ChecklistBuildDTO struct {
	Total        int      `json:"total"`
	Limit        int      `json:"limit"`
	State        int      `json:"expected_state"`
	Missing      []string `json:"missing"`
	NotInArchive []string `json:"not_in_archive"`
}
