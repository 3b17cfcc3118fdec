package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ModuleFields 提供模块定位信息，注册/激活日志与传给模块的 logger 共用。
func ModuleFields(locator, unitName, typeName string) logrus.Fields {
	fields := logrus.Fields{
		"locator": locator,
		"unit":    unitName,
	}
	if typeName != "" {
		fields["module_type"] = typeName
	}
	return fields
}

// RequestFields 提供请求级字段，供 Fiber 访问日志复用。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
