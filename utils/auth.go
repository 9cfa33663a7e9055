package utils

import (
	"slices"

	"confessbot/model"
)

// NewModeratorCheck 返回审核权限检查函数。
// Developers and holders of a moderator role may approve or reject. With both
// lists empty, anyone who can see the moderation channel may moderate.
func NewModeratorCheck(auth model.Auth) func(userID string, roles []string) bool {
	if len(auth.Developers) == 0 && len(auth.ModeratorRoles) == 0 {
		return func(string, []string) bool { return true }
	}
	return func(userID string, roles []string) bool {
		return CheckAuth(auth, userID, roles)
	}
}

// CheckAuth 检查用户是否有权限
func CheckAuth(auth model.Auth, userID string, roles []string) bool {
	// 检查是否为开发者
	if slices.Contains(auth.Developers, userID) {
		return true
	}

	// 检查是否拥有审核员角色
	for _, role := range roles {
		if slices.Contains(auth.ModeratorRoles, role) {
			return true
		}
	}

	return false
}
