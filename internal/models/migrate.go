package models

// All lists every PostgreSQL model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Profile{},
		&Like{},
		&Comment{},
		&Follow{},
		&Thread{},
		&Message{},
		&ThreadRead{},
		&SavedList{},
		&SavedItem{},
		&OpinionReaction{},
		&OpinionComment{},
		&OpinionVote{},
		&Project{},
		&ProjectMember{},
		&Callsheet{},
		&Notification{},
		&NotificationPref{},
		&NotificationMute{},
		&Brief{},
		&BriefTarget{},
		&Proposal{},
		&Dashboard{},
		&DashboardMember{},
		&DashboardProject{},
		&Report{},
	}
}
