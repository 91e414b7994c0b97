package service

import "context"

type ctxKey string

const ctxStaffKey ctxKey = "staff"

// SystemStaff attributes log entries written without a caller identity.
const SystemStaff = "system"

func WithStaff(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxStaffKey, name)
}

func StaffFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxStaffKey).(string)
	return v, ok && v != ""
}

func staffOrSystem(ctx context.Context) string {
	if name, ok := StaffFromContext(ctx); ok {
		return name
	}
	return SystemStaff
}
