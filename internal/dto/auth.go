package dto

// ── 认证模块 DTO ──

// RegisterRequest 注册请求
// 学号、手机号、姓名等格式规则在 Service 层逐字段校验
type RegisterRequest struct {
	Username        string `json:"username"         binding:"required,min=3,max=50"`
	Password        string `json:"password"         binding:"required,min=5,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	FirstName       string `json:"first_name"       binding:"required,max=100"`
	LastName        string `json:"last_name"        binding:"required,max=100"`
	StudentID       string `json:"student_id"       binding:"required"`
	Email           string `json:"email"            binding:"required,email"`
	Phone           string `json:"phone"            binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username   string `json:"username"    binding:"required"`
	Password   string `json:"password"    binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CheckUsernameRequest 用户名占用查询
type CheckUsernameRequest struct {
	Username string `json:"username" binding:"required"`
}

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// RegisterResponse 注册成功响应
type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// CheckUsernameResponse 用户名占用结果
type CheckUsernameResponse struct {
	Exists bool `json:"exists"`
}
