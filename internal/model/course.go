package model

// swagger:model Course
type Course struct {
	BaseModel
	SoftDelete
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	OrderIndex  int       `gorm:"not null;default:0;index" json:"orderIndex"`
	Chapters    []Chapter `gorm:"foreignKey:CourseID" json:"chapters,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Chapter
type Chapter struct {
	BaseModel
	SoftDelete
	CourseID    uint     `gorm:"not null;index" json:"courseId"`
	Title       string   `gorm:"size:255;not null" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	OrderIndex  int      `gorm:"not null;default:0" json:"orderIndex"`
	Course      *Course  `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Lessons     []Lesson `gorm:"foreignKey:ChapterID" json:"lessons,omitempty"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// swagger:model Lesson
type Lesson struct {
	BaseModel
	SoftDelete
	ChapterID        uint     `gorm:"not null;index" json:"chapterId"`
	Title            string   `gorm:"size:255;not null" json:"title"`
	Content          string   `gorm:"type:text" json:"content"`
	EstimatedMinutes int      `gorm:"default:0" json:"estimatedMinutes"`
	OrderIndex       int      `gorm:"not null;default:0" json:"orderIndex"`
	IsPublished      bool     `gorm:"default:false" json:"isPublished"`
	Chapter          *Chapter `gorm:"foreignKey:ChapterID" json:"chapter,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}
