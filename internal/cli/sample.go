package cli

import "getlowlevel-service/internal/domain"

// sampleQuestions is a tiny built-in bank so the service runs without a file or database.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Title:         "Process vs Thread",
			Topic:         "Operating Systems",
			Difficulty:    "Easy",
			Description:   "Which resource is shared between threads of the same process but not between processes?",
			Options:       []string{"Program counter", "Stack", "Address space", "Registers"},
			CorrectAnswer: "Address space",
		},
		{
			Title:         "Page Fault",
			Topic:         "Operating Systems",
			Difficulty:    "Medium",
			Description:   "What happens when a process touches a page that is not resident in memory?",
			Options:       []string{"Segfault", "Page fault handled by the kernel", "TLB flush", "Context switch to init"},
			CorrectAnswer: "Page fault handled by the kernel",
		},
		{
			Title:         "Dangling Reference",
			Language:      "Cpp",
			Topic:         "Memory",
			Difficulty:    "Medium",
			Code:          "int& f() { int x = 1; return x; }",
			Options:       []string{"Compiles and is safe", "Undefined behavior", "Compile error", "Returns 0"},
			CorrectAnswer: "Undefined behavior",
		},
		{
			Title:         "Borrow Rules",
			Language:      "Rust",
			Topic:         "Memory",
			Difficulty:    "Easy",
			Description:   "How many mutable references to a value may exist at once?",
			Options:       []string{"Zero", "One", "Two", "Unlimited"},
			CorrectAnswer: "One",
		},
		{
			Title:         "GIL",
			Language:      "Python",
			Topic:         "Concurrency",
			Difficulty:    "Medium",
			Description:   "What does CPython's global interpreter lock serialize?",
			Options:       []string{"I/O syscalls", "Bytecode execution", "Process creation", "Garbage collection only"},
			CorrectAnswer: "Bytecode execution",
		},
	}
}
