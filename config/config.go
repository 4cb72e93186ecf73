// Package config 配置信息入口
package config

// Initialize 触发本目录下所有配置文件的 init 方法，
// 确保在 config.InitConfig 之前完成注册
func Initialize() {
	// 什么也不做，加载本包即可触发 init
}
