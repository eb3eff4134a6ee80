package tools

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestExtractTasksOwnerAndDue(t *testing.T) {
	text := "John will prepare the slides by Friday. The weather was pleasant."
	tasks := ExtractTasks(text, 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1: %+v", len(tasks), tasks)
	}

	task := tasks[0]
	if task.Title != "John will prepare the slides by Friday." {
		t.Errorf("Title = %q", task.Title)
	}
	if task.Owner != "John" {
		t.Errorf("Owner = %q, want John", task.Owner)
	}
	if task.Due != "Friday" {
		t.Errorf("Due = %q, want Friday", task.Due)
	}
	if task.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", task.Confidence)
	}
}

func TestExtractTasksImperative(t *testing.T) {
	tasks := ExtractTasks("Prepare the quarterly report.", 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Owner != "" {
		t.Errorf("Owner = %q, want empty", tasks[0].Owner)
	}
	if tasks[0].Confidence != 0.4 {
		t.Errorf("Confidence = %v, want 0.4", tasks[0].Confidence)
	}
}

func TestExtractTasksAssignedTo(t *testing.T) {
	tasks := ExtractTasks("This is assigned to Maria Lopez.", 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Owner != "Maria Lopez" {
		t.Errorf("Owner = %q, want Maria Lopez", tasks[0].Owner)
	}
}

func TestExtractTasksConditionalFiltered(t *testing.T) {
	text := "We might review the budget. If we ship early, celebrate with the team."
	if tasks := ExtractTasks(text, 5); len(tasks) != 0 {
		t.Fatalf("conditional sentences kept: %+v", tasks)
	}
}

func TestExtractTasksOwnerBlacklist(t *testing.T) {
	tasks := ExtractTasks("The team will review the design by Monday.", 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Owner != "" {
		t.Errorf("Owner = %q, want empty for generic subject", tasks[0].Owner)
	}
	if tasks[0].Due != "Monday" {
		t.Errorf("Due = %q, want Monday", tasks[0].Due)
	}
	if tasks[0].Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", tasks[0].Confidence)
	}
}

func TestExtractTasksRelativeDue(t *testing.T) {
	tasks := ExtractTasks("Fix the login bug in 2 days.", 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	want := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	if tasks[0].Due != want {
		t.Errorf("Due = %q, want %q", tasks[0].Due, want)
	}

	tasks = ExtractTasks("Review the proposal tomorrow.", 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	want = time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	if tasks[0].Due != want {
		t.Errorf("Due = %q, want %q", tasks[0].Due, want)
	}
}

func TestExtractTasksSpeakerPrefixStripped(t *testing.T) {
	tasks := ExtractTasks("Bob (PM): Bob will schedule the retro by Friday.", 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Title != "Bob will schedule the retro by Friday." {
		t.Errorf("Title = %q", tasks[0].Title)
	}
	if tasks[0].Owner != "Bob" {
		t.Errorf("Owner = %q, want Bob", tasks[0].Owner)
	}
}

func TestExtractTasksTitleTruncated(t *testing.T) {
	sentence := "Alice will document the onboarding flow " +
		strings.Repeat("covering every edge case ", 8) + "carefully."
	tasks := ExtractTasks(sentence, 5)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	title := tasks[0].Title
	if !strings.HasSuffix(title, "...") {
		t.Errorf("Title not truncated: %q", title)
	}
	if utf8.RuneCountInString(title) > 200 {
		t.Errorf("Title too long: %d runes", utf8.RuneCountInString(title))
	}
}

func TestExtractTasksMaxTasks(t *testing.T) {
	text := "Alice will prepare the deck by Monday. Bob will review the API by Tuesday. Carol will test the release by Friday."
	if tasks := ExtractTasks(text, 2); len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks := ExtractTasks(text, 0); tasks != nil {
		t.Fatalf("maxTasks 0 returned %+v", tasks)
	}
}
