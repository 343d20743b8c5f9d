package store

// DefaultChapters is the chapter set seeded on first run.
// Sort order defines both the interview flow and book compilation order.
func DefaultChapters() []Chapter {
	return []Chapter{
		{ID: "childhood", Title: "Childhood", SortOrder: 1},
		{ID: "youth", Title: "Youth and School Years", SortOrder: 2},
		{ID: "family", Title: "Family and Relationships", SortOrder: 3},
		{ID: "career", Title: "Work and Career", SortOrder: 4},
		{ID: "reflections", Title: "Reflections and Lessons", SortOrder: 5},
	}
}

// DefaultQuestions is the question set seeded on first run.
func DefaultQuestions() []Question {
	return []Question{
		{ID: "childhood-01", ChapterID: "childhood", SortOrder: 1, Prompt: "Where were you born, and what do you know about the day you were born?"},
		{ID: "childhood-02", ChapterID: "childhood", SortOrder: 2, Prompt: "What is your earliest memory?"},
		{ID: "childhood-03", ChapterID: "childhood", SortOrder: 3, Prompt: "Describe the home you grew up in."},
		{ID: "childhood-04", ChapterID: "childhood", SortOrder: 4, Prompt: "Who were the most important people in your early years?"},

		{ID: "youth-01", ChapterID: "youth", SortOrder: 1, Prompt: "What were you like as a teenager?"},
		{ID: "youth-02", ChapterID: "youth", SortOrder: 2, Prompt: "Which teachers or mentors left a mark on you?"},
		{ID: "youth-03", ChapterID: "youth", SortOrder: 3, Prompt: "What did you dream of becoming?"},

		{ID: "family-01", ChapterID: "family", SortOrder: 1, Prompt: "How did you meet your partner, or who has been closest to you in life?"},
		{ID: "family-02", ChapterID: "family", SortOrder: 2, Prompt: "Tell me about becoming a parent, or about the family you built or chose."},
		{ID: "family-03", ChapterID: "family", SortOrder: 3, Prompt: "What family traditions matter most to you?"},

		{ID: "career-01", ChapterID: "career", SortOrder: 1, Prompt: "What was your first job?"},
		{ID: "career-02", ChapterID: "career", SortOrder: 2, Prompt: "What work are you most proud of?"},
		{ID: "career-03", ChapterID: "career", SortOrder: 3, Prompt: "What was the hardest period of your working life?"},

		{ID: "reflections-01", ChapterID: "reflections", SortOrder: 1, Prompt: "What are you most grateful for?"},
		{ID: "reflections-02", ChapterID: "reflections", SortOrder: 2, Prompt: "What lessons would you pass on to the next generation?"},
		{ID: "reflections-03", ChapterID: "reflections", SortOrder: 3, Prompt: "How would you like to be remembered?"},
	}
}
