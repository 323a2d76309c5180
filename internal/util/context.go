package util

import (
	"net/http"

	"github.com/HiveCTF/cyberhive"
)

// HiveContextType is the string type for all context values.
type HiveContextType string

const (
	// UserKey is the key to be used for adding user objects to context
	UserKey = HiveContextType("user")
	// ContestKey is the key to be used for adding contests to context
	ContestKey = HiveContextType("contest")
	// TaskKey is the key to be used for adding tasks to context
	TaskKey = HiveContextType("task")
	// ArticleKey is the key to be used for adding articles to context
	ArticleKey = HiveContextType("article")
)

// UserFull returns the authenticated user from request context.
func UserFull(r *http.Request) *cyberhive.UserFull {
	switch v := r.Context().Value(UserKey).(type) {
	case cyberhive.UserFull:
		return &v
	case *cyberhive.UserFull:
		return v
	default:
		return nil
	}
}

// UserBrief returns the slim identity of the authenticated user.
func UserBrief(r *http.Request) *cyberhive.UserBrief {
	return UserFull(r).Brief()
}

// Contest returns the contest from request context.
func Contest(r *http.Request) *cyberhive.Contest {
	switch v := r.Context().Value(ContestKey).(type) {
	case cyberhive.Contest:
		return &v
	case *cyberhive.Contest:
		return v
	default:
		return nil
	}
}

// Task returns the task from request context.
func Task(r *http.Request) *cyberhive.Task {
	switch v := r.Context().Value(TaskKey).(type) {
	case cyberhive.Task:
		return &v
	case *cyberhive.Task:
		return v
	default:
		return nil
	}
}

// Article returns the article from request context.
func Article(r *http.Request) *cyberhive.Article {
	switch v := r.Context().Value(ArticleKey).(type) {
	case cyberhive.Article:
		return &v
	case *cyberhive.Article:
		return v
	default:
		return nil
	}
}
