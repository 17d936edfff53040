package project

// Sample returns the demonstration project used when no project source is
// configured.
func Sample(id string) *Data {
	return &Data{
		Project: Project{
			ID:          id,
			Name:        "Sample Project",
			Description: "Sample project for AI analysis",
			StartDate:   NewDate("2024-01-01"),
			EndDate:     NewDate("2024-02-15"),
		},
		Tasks: []Task{
			{
				ID: "task-1", Title: "Design System Setup",
				Description: "Create comprehensive design system and component library",
				Status:      TaskCompleted, Priority: "high",
				Assignee: "Sarah Chen", AssigneeID: "user-1", TeamID: "design",
				StartDate: NewDate("2024-01-01"), EndDate: NewDate("2024-01-15"),
				Progress: 100, EstimatedHours: 80, ActualHours: 75,
			},
			{
				ID: "task-2", Title: "API Development",
				Description: "Build RESTful API endpoints and database integration",
				Status:      TaskInProgress, Priority: "high",
				Assignee: "Mike Johnson", AssigneeID: "user-2", TeamID: "backend",
				StartDate: NewDate("2024-01-10"), EndDate: NewDate("2024-01-20"),
				Progress: 65, Dependencies: []string{"task-1"},
				EstimatedHours: 120, ActualHours: 95,
			},
			{
				ID: "task-3", Title: "Frontend Implementation",
				Description: "Implement user interface using React and design system",
				Status:      TaskPending, Priority: "medium",
				Assignee: "Alex Rivera", AssigneeID: "user-3", TeamID: "frontend",
				StartDate: NewDate("2024-01-18"), EndDate: NewDate("2024-01-25"),
				Dependencies:   []string{"task-1", "task-2"},
				EstimatedHours: 100,
			},
			{
				ID: "task-4", Title: "Testing & QA",
				Description: "Comprehensive testing including unit, integration, and E2E tests",
				Status:      TaskPending, Priority: "high",
				Assignee: "Emma Davis", AssigneeID: "user-4", TeamID: "qa",
				StartDate: NewDate("2024-01-23"), EndDate: NewDate("2024-01-30"),
				Dependencies:   []string{"task-3"},
				EstimatedHours: 60,
			},
		},
		Teams: []Team{
			{ID: "design", Name: "Design Team", WorkloadUtilization: 75, TaskIDs: []string{"task-1"}},
			{ID: "backend", Name: "Backend Team", WorkloadUtilization: 95, TaskIDs: []string{"task-2"}},
			{ID: "frontend", Name: "Frontend Team", WorkloadUtilization: 60, TaskIDs: []string{"task-3"}},
			{ID: "qa", Name: "QA Team", WorkloadUtilization: 40, TaskIDs: []string{"task-4"}},
		},
		Resources: []Resource{
			{ID: "user-1", Name: "Sarah Chen", TeamID: "design", Skills: []string{"UI/UX Design", "Figma", "Design Systems"}, Capacity: 40, Availability: "available"},
			{ID: "user-2", Name: "Mike Johnson", TeamID: "backend", Skills: []string{"Node.js", "Python", "Database Design", "API Development"}, Capacity: 40, Availability: "busy"},
			{ID: "user-3", Name: "Alex Rivera", TeamID: "frontend", Skills: []string{"React", "TypeScript", "CSS", "JavaScript"}, Capacity: 40, Availability: "available"},
			{ID: "user-4", Name: "Emma Davis", TeamID: "qa", Skills: []string{"Test Automation", "Manual Testing", "Cypress", "Jest"}, Capacity: 40, Availability: "available"},
		},
		Dependencies: []Dependency{
			{ID: "dep-1", From: "task-1", To: "task-2", Type: "finish-to-start"},
			{ID: "dep-2", From: "task-1", To: "task-3", Type: "finish-to-start"},
			{ID: "dep-3", From: "task-2", To: "task-3", Type: "finish-to-start"},
			{ID: "dep-4", From: "task-3", To: "task-4", Type: "finish-to-start"},
		},
		SkillRequirements: []SkillRequirement{
			{TaskID: "task-1", Skill: "UI/UX Design"},
			{TaskID: "task-1", Skill: "Design Systems"},
			{TaskID: "task-2", Skill: "API Development"},
			{TaskID: "task-2", Skill: "Database Design"},
			{TaskID: "task-3", Skill: "React"},
			{TaskID: "task-3", Skill: "TypeScript"},
			{TaskID: "task-4", Skill: "Test Automation"},
			{TaskID: "task-4", Skill: "Manual Testing"},
		},
	}
}
