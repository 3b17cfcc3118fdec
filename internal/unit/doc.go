// Package unit 管理可加载代码单元（unit）：进程内目录、按名称/路径解析，以及依赖树遍历。
//
// 单元有两种来源：
//   1. 与宿主一起编译的包，在 init() 中调用 MustRegister 登记自身；
//   2. 通过 -buildmode=plugin 构建的 .so 文件，导出名为 Unit 的符号，由 Resolver 按路径加载。
//
// 每个单元通过 EntryPoints 显式声明入口工厂，通过 Assets 携带 wwwroot 下的静态资源。
package unit
